package headlines

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/news-digest/internal/common"
	"github.com/dtnitsch/news-digest/models"
)

// HeadlinesAction lists headlines and links for a region or the national front page.
func HeadlinesAction(c *cli.Context) error {
	location := c.String("location")
	national := c.Bool("national")
	if national == (location != "") {
		return cli.Exit("error [Usage]: pass exactly one of --location or --national", common.ExitFailure)
	}

	env, err := common.Bootstrap(c)
	if err != nil {
		return err
	}
	defer env.Close()

	p, err := env.NewPipeline(common.PipelineOptions{})
	if err != nil {
		return common.Fail(err)
	}

	var idx *models.HeadlineIndex
	if national {
		idx, err = p.NationalHeadlines(c.Context)
	} else {
		idx, err = p.Headlines(c.Context, location, c.Bool("all"))
	}
	if err != nil {
		return common.Fail(err)
	}

	printIndex(c.App.Writer, idx)
	return nil
}

func printIndex(w io.Writer, idx *models.HeadlineIndex) {
	if idx.Len() == 0 {
		fmt.Fprintln(w, "No headlines found")
		return
	}
	n := 0
	idx.Each(func(headline, link string) bool {
		n++
		fmt.Fprintf(w, "%2d. %s\n    %s\n", n, headline, link)
		return true
	})
	fmt.Fprintf(w, "\nTotal: %d headlines\n", idx.Len())
}
