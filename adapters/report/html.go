package report

import (
	"fmt"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"ablab/internal/analysis"
)

const htmlShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: sans-serif; max-width: 960px; margin: 2rem auto; padding: 0 1rem; }
table { border-collapse: collapse; margin: 1rem 0; }
th, td { border: 1px solid #ccc; padding: 0.35rem 0.6rem; text-align: left; }
th { background: #f4f4f4; }
code { background: #f4f4f4; padding: 0.1rem 0.3rem; }
</style>
</head>
<body>
%s
</body>
</html>
`

// HTML renders one experiment's analysis as a standalone HTML page
func HTML(a *analysis.Analysis) []byte {
	return renderHTML(string(a.ExperimentID), Markdown(a))
}

// SummaryHTML renders the cross-experiment overview as HTML
func SummaryHTML(analyses []*analysis.Analysis) []byte {
	return renderHTML("Batch Summary", Summary(analyses))
}

func renderHTML(title, md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	doc := p.Parse([]byte(md))
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	body := markdown.Render(doc, renderer)
	return []byte(fmt.Sprintf(htmlShell, title, body))
}
