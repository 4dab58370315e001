package ingest

import (
	"strings"

	"github.com/wasilibs/go-re2"
)

var (
	// quoteHeader matches the "On <date>, <someone> wrote:" line mail
	// clients put above a quoted reply, possibly wrapped over two lines.
	quoteHeader = re2.MustCompile(`\nOn (Mon|Tue|Wed|Thu|Fri|Sat|Sun), (Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec) [^>]+([^\n]>)?( |\r?\n)wrote:\r?\n\r?\n?>`)
	// signatureBlock matches a "-- " signature and everything after it.
	signatureBlock = re2.MustCompile(`(?s)\r?\n-- \r?\n.*$`)
)

// CleanBody strips the quoted digest and the signature from a reply and
// returns what the user actually wrote.
func CleanBody(body string) string {
	body = "\n" + strings.ReplaceAll(body, "\r\n", "\n")
	body = quoteHeader.ReplaceAllString(body, "\n>")
	body = signatureBlock.ReplaceAllString(body, "")

	var kept []string
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, ">") {
			continue
		}
		kept = append(kept, strings.TrimRight(line, " \t"))
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
