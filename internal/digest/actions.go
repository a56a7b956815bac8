package digest

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/news-digest/internal/common"
)

// DigestAction answers a free-text query with a summarized digest on stdout.
func DigestAction(c *cli.Context) error {
	q := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if q == "" {
		return cli.Exit("error [Usage]: a query is required, e.g. news-digest digest sports news in delhi", common.ExitFailure)
	}

	env, err := common.Bootstrap(c)
	if err != nil {
		return err
	}
	defer env.Close()

	keywords := c.Int("keywords")
	p, err := env.NewPipeline(common.PipelineOptions{Keywords: keywords, DetectLanguage: true})
	if err != nil {
		return common.Fail(err)
	}

	d, err := p.Run(c.Context, q)
	if err != nil {
		return common.Fail(err)
	}

	out := c.App.Writer
	fmt.Fprint(out, d.Text(env.Config.Output.WrapWidth))

	if keywords > 0 && len(d.Keywords) > 0 {
		fmt.Fprintln(out, "Keywords:")
		for i, k := range d.Keywords {
			fmt.Fprintf(out, "%d. %s: %d\n", i+1, k.Word, k.Count)
		}
	}
	return nil
}
