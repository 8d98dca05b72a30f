package commands

import (
	"fmt"

	"github.com/sinch/sinch-quickstart/internal/payload"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (a *App) installDecode() {
	cmd := &cobra.Command{
		Use:   "decode <base64-json>",
		Short: "Print the decoded payload, with the secret redacted, and exits",
		Long: `Print the decoded payload, with the secret redacted, and exits.

Defaults are applied to the optional keys. Nothing is downloaded or written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := payload.Decode(args[0])
			if err != nil {
				a.cmd.SilenceUsage = false
				return err
			}

			project, err := p.ProjectName()
			if err != nil {
				return err
			}

			out, err := yaml.Marshal(struct {
				payload.Payload `yaml:",inline"`
				Project         string `yaml:"project"`
			}{p.Redacted(), project})
			if err != nil {
				return fmt.Errorf("could not marshal payload: %v", err)
			}

			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	a.cmd.AddCommand(cmd)
}
