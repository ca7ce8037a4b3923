package renderer

import (
	"bytes"

	"github.com/olekukonko/tablewriter"
)

// renderSummary draws the repository overview table used by the plaintext form
func renderSummary(v *view) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Repository", "Stars", "Forks", "Language", "Deployable"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)

	for _, group := range [][]repoView{v.Deployable, v.Other} {
		for _, r := range group {
			table.Append([]string{r.FullName, itoa(r.Stars), itoa(r.Forks), r.Language, yesNo(r.Deploy != nil)})
		}
	}
	table.Render()
	return buf.String()
}
