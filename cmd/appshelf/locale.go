package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/appshelf"
)

func newLocaleCmd() *cobra.Command {
	var accept, list bool

	cmd := &cobra.Command{
		Use:   "locale [tag...]",
		Short: "Show which translation language a locale tag resolves to",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if list {
				langs := appshelf.SupportedLanguages()
				sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
				for _, l := range langs {
					fmt.Fprintf(out, "%s\t%s\n", l, l.Name())
				}
				return nil
			}

			if len(args) == 0 {
				return fmt.Errorf("requires at least one locale tag, or --list")
			}

			for _, tag := range args {
				var lang appshelf.Language
				if accept {
					lang = appshelf.LanguageFromAcceptLanguage(tag)
				} else {
					lang = appshelf.LanguageFromLocale(tag)
				}
				note := ""
				if lang == appshelf.DefaultLanguage && !strings.EqualFold(appshelf.PrimarySubtag(tag), string(lang)) {
					note = "\t(default)"
				}
				fmt.Fprintf(out, "%s\t%s\t%s%s\n", tag, lang, lang.Name(), note)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&accept, "accept", false, "treat each argument as an Accept-Language header")
	cmd.Flags().BoolVar(&list, "list", false, "list supported languages")
	return cmd
}
