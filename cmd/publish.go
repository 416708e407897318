package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rostermine/pkg/notion"
)

var (
	publishRunID string
	publishAll   bool
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish discovered rules from a saved run to Notion",
	Long: `Pushes rules from a persisted analysis run into the configured Notion
rule database, one page per rule. By default only high-confidence rules are
published; --all publishes every validated rule.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cfg.Notion.Token == "" || cfg.Notion.RuleDB == "" {
			return eris.New("notion token and rule_db must be configured (ROSTERMINE_NOTION_TOKEN, ROSTERMINE_NOTION_RULE_DB)")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, publishRunID)
		if err != nil {
			return eris.Wrap(err, "publish: load run")
		}
		if run.Result == nil {
			return eris.Errorf("run %s has no result to publish", publishRunID)
		}

		rules := run.Result.HighConfidenceRules
		if publishAll {
			rules = run.Result.Rules
		}
		if len(rules) == 0 {
			fmt.Println("No rules to publish.")
			return nil
		}

		client := notion.NewClient(cfg.Notion.Token)
		publisher := notion.NewPublisher(client, cfg.Notion.RuleDB)

		result, err := publisher.Publish(ctx, rules)
		if err != nil {
			return eris.Wrap(err, "publish")
		}

		zap.L().Info("publish complete",
			zap.String("run", run.ID),
			zap.Int("created", result.Created),
			zap.Int("updated", result.Updated))
		fmt.Printf("Published %d rules (%d created, %d updated)\n",
			result.Created+result.Updated, result.Created, result.Updated)
		return nil
	},
}

func init() {
	publishCmd.Flags().StringVar(&publishRunID, "run", "", "run id to publish (required)")
	publishCmd.Flags().BoolVar(&publishAll, "all", false, "publish all validated rules, not just high-confidence ones")
	_ = publishCmd.MarkFlagRequired("run")
	rootCmd.AddCommand(publishCmd)
}
