/*
Copyright 2024 Claimdesk Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package api

import (
	"net/http"

	model2 "github.com/claimdesk/claimdesk/api/model"
	"github.com/claimdesk/claimdesk/model"

	"github.com/gin-gonic/gin"
)

func (a Api) CreateClaim(c *gin.Context) {
	var newClaim model2.CreateClaim
	if err := c.ShouldBindJSON(&newClaim); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := newClaim.ValidateCreateClaim(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	role, known := actorRole(c)
	if !known {
		c.JSON(http.StatusForbidden, gin.H{"error": "a known X-Claimdesk-Role header is required"})
		return
	}

	resp, err := a.service.CreateClaim(c.Request.Context(), newClaim.ToClaim(), role)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetClaim(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.service.GetClaim(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) GetAllClaims(c *gin.Context) {
	limit, offset := pagination(c)
	resp, err := a.service.GetAllClaims(c.Request.Context(), limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// UpdateClaim accepts a sparse field set, optionally including a status
// transition. The state machine decides what the acting role may do.
func (a Api) UpdateClaim(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	var raw map[string]interface{}
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	fields, err := model2.ToFieldSet(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	role, known := actorRole(c)
	if !known {
		c.JSON(http.StatusForbidden, gin.H{"error": "a known X-Claimdesk-Role header is required"})
		return
	}

	resp, err := a.service.UpdateClaim(c.Request.Context(), id, fields, role)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) GetClaimSla(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.service.GetClaimSla(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) GetClaimReprocesses(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.service.GetClaimReprocesses(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) GetClaimEvents(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.service.GetAuditEvents(c.Request.Context(), model.ResourceClaim, id)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
