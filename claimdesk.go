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

package claimdesk

import (
	"fmt"
	"time"

	"github.com/claimdesk/claimdesk/config"
	"github.com/claimdesk/claimdesk/database"
	redis_db "github.com/claimdesk/claimdesk/internal/redis-db"
	"github.com/claimdesk/claimdesk/model"
	"github.com/redis/go-redis/v9"
)

const (
	// How long an update holds the per-entity redis lock, and how long a
	// competing update waits before giving up.
	lockDuration    = 30 * time.Second
	lockWaitTimeout = 10 * time.Second
)

// Claimdesk is the service layer: it owns the datasource, the redis
// client used for cross-instance locking, and the SLA calendar derived
// from configuration.
type Claimdesk struct {
	redis      redis.UniversalClient
	datasource database.IDataSource
}

// NewClaimdesk initializes a new instance of Claimdesk with the provided
// database datasource. It fetches the configuration and initializes the
// Redis client used for entity locks.
func NewClaimdesk(db database.IDataSource) (*Claimdesk, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", configuration.Redis.Dns)})
	if err != nil {
		return nil, err
	}
	newClaimdesk := &Claimdesk{datasource: db, redis: redisClient.Client()}
	return newClaimdesk, nil
}

// Config returns the current configuration, panicking only if called
// before InitConfig, which is a programming error.
func (c *Claimdesk) Config() *config.Configuration {
	configuration, err := config.Fetch()
	if err != nil {
		panic(err)
	}
	return configuration
}

// calendar builds the business-day calendar from the configured holiday
// list. Unparseable entries are ignored by the calendar itself.
func (c *Claimdesk) calendar() model.Calendar {
	return model.NewCalendar(c.Config().Sla.Holidays)
}
