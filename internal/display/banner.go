package display

import (
	"fmt"
	"io"

	"github.com/backmassage/convert-videos/internal/config"
	"github.com/backmassage/convert-videos/internal/term"
)

// PrintBanner prints the startup banner to w; uses Magenta if colors are enabled.
func PrintBanner(w io.Writer) {
	fmt.Fprint(w, term.Magenta)
	fmt.Fprint(w, `                                   _
  ___ ___  _ ____   _____ _ __| |_     __   _(_) __| | ___  ___  ___
 / __/ _ \| '_ \ \ / / _ \ '__| __|____\ \ / / |/ _`+"`"+` |/ _ \/ _ \/ __|
| (_| (_) | | | \ V /  __/ |  | ||_____|\ V /| | (_| |  __/ (_) \__ \
 \___\___/|_| |_|\_/ \___|_|   \__|      \_/ |_|\__,_|\___|\___/|___/
`)
	fmt.Fprintln(w, term.NC+"  v"+config.Version)
}
