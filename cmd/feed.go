package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskboard/internal/calfeed"
	"github.com/twiced-technology-gmbh/taskboard/internal/output"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Show your calendar subscription URL",
	Long: `Prints the iCalendar feed URL of your dated tasks, generating a token on
first use. Anyone with the URL can read the feed; use "feed regenerate"
to revoke it. The URL base is feed.base_url, or the server URL.`,
	Args: cobra.NoArgs,
	RunE: runFeedURL,
}

var feedTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Show the current feed token without generating one",
	Args:  cobra.NoArgs,
	RunE:  runFeedToken,
}

var feedRegenerateCmd = &cobra.Command{
	Use:   "regenerate",
	Short: "Replace the feed token; the old URL stops working",
	Args:  cobra.NoArgs,
	RunE:  runFeedRegenerate,
}

func init() {
	feedCmd.AddCommand(feedTokenCmd, feedRegenerateCmd)
	rootCmd.AddCommand(feedCmd)
}

type feedResult struct {
	URL   string              `json:"url"`
	Token *task.CalendarToken `json:"token"`
}

func feedManager() (*calfeed.Manager, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	sess, err := newSession(cfg, false)
	if err != nil {
		return nil, err
	}
	return sess.Feed, nil
}

func runFeedURL(cmd *cobra.Command, _ []string) error {
	feed, err := feedManager()
	if err != nil {
		return err
	}
	tok, err := feed.Ensure(cmd.Context())
	if err != nil {
		return err
	}
	return outputFeed(feed, tok)
}

func runFeedToken(cmd *cobra.Command, _ []string) error {
	feed, err := feedManager()
	if err != nil {
		return err
	}
	tok, err := feed.Token(cmd.Context())
	if err != nil {
		return err
	}
	if tok == nil {
		if outputFormat() == output.FormatJSON {
			return output.JSON(os.Stdout, feedResult{})
		}
		fmt.Fprintln(os.Stderr, `No feed token yet; run "taskboard feed" to create one.`)
		return nil
	}
	return outputFeed(feed, *tok)
}

func runFeedRegenerate(cmd *cobra.Command, _ []string) error {
	feed, err := feedManager()
	if err != nil {
		return err
	}
	tok, err := feed.Regenerate(cmd.Context())
	if err != nil {
		return err
	}
	if outputFormat() != output.FormatJSON {
		fmt.Fprintln(os.Stderr, "The previous feed URL no longer works.")
	}
	return outputFeed(feed, tok)
}

func outputFeed(feed *calfeed.Manager, tok task.CalendarToken) error {
	url := feed.FeedURL(tok)
	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, feedResult{URL: url, Token: &tok})
	}
	output.FeedURL(os.Stdout, url, tok)
	return nil
}
