// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"context"
	"fmt"
	"io"

	"github.com/featurebasedb/empstats"
	"github.com/featurebasedb/empstats/server"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// ConfigCommand prints the configuration the server would run with after
// flags, environment and config file are applied.
type ConfigCommand struct {
	*empstats.CmdIO
	Config *server.Config
}

// NewConfigCommand returns a new instance of ConfigCommand.
func NewConfigCommand(stdin io.Reader, stdout, stderr io.Writer) *ConfigCommand {
	return &ConfigCommand{
		CmdIO:  empstats.NewCmdIO(stdin, stdout, stderr),
		Config: server.NewConfig(),
	}
}

// Run prints the current configuration as TOML.
func (cmd *ConfigCommand) Run(_ context.Context) error {
	buf, err := toml.Marshal(*cmd.Config)
	if err != nil {
		return errors.Wrap(err, "marshalling config")
	}
	fmt.Fprintln(cmd.Stdout, string(buf))
	return nil
}
