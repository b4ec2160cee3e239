package main

import (
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/challenge-resolver/internal/lexicon"
)

var lexiconScan bool

var lexiconCmd = &cobra.Command{
	Use:   "lexicon <name>",
	Short: "Look a place name up in the built-in lexicon",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return lookupPlace(cmd.OutOrStdout(), lexicon.Default(), strings.Join(args, " "), lexiconScan)
	},
}

func init() {
	lexiconCmd.Flags().BoolVar(&lexiconScan, "scan", false, "find the first lexicon name anywhere in the text")
	rootCmd.AddCommand(lexiconCmd)
}

type lexiconResult struct {
	lexicon.Place
	Match string `json:"match,omitempty"`
}

func lookupPlace(w io.Writer, lex *lexicon.Lexicon, text string, scan bool) error {
	if scan {
		p, match, ok := lex.Scan(text)
		if !ok {
			return eris.Errorf("no lexicon name found in %q", text)
		}
		return writeJSON(w, lexiconResult{Place: p, Match: match})
	}
	p, ok := lex.Resolve(text)
	if !ok {
		return eris.Errorf("%q is unknown or ambiguous", text)
	}
	return writeJSON(w, lexiconResult{Place: p})
}
