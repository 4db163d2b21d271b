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

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/claimdesk/claimdesk"
	"github.com/claimdesk/claimdesk/config"
	"github.com/claimdesk/claimdesk/database"
	"github.com/claimdesk/claimdesk/internal/notification"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// CLI wraps the root Cobra command of the claimdesk binary.
type CLI struct {
	cmd *cobra.Command
}

// serviceInstance holds the initialized service and its configuration
// for use by the subcommands.
type serviceInstance struct {
	service *claimdesk.Claimdesk
	cnf     *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads configuration and wires the service before any command
// runs.
func preRun(app *serviceInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("claimdesk.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		service, err := setupService(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.service = service
		app.cnf = cnf

		return nil
	}
}

func setupService(cfg *config.Configuration) (*claimdesk.Claimdesk, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	service, err := claimdesk.NewClaimdesk(db)
	if err != nil {
		return nil, fmt.Errorf("error creating claimdesk: %v", err)
	}
	return service, nil
}

func NewCLI() *CLI {
	var configFile string
	app := &serviceInstance{}

	var rootCmd = &cobra.Command{
		Use:   "claimdesk",
		Short: "Insurance claims administration core",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./claimdesk.json", "Configuration file for claimdesk")

	rootCmd.PersistentPreRunE = preRun(app)

	rootCmd.AddCommand(serverCommands(app))
	rootCmd.AddCommand(configCommands())

	return &CLI{cmd: rootCmd}
}

func (c CLI) executeCLI() {
	if err := c.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
