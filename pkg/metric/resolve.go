// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

package metric

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/qsrceo/ceobot/pkg/errors"
)

var regexMeta = regexp.MustCompile(`[\\^$.|?*+()\[\]{}]`)

// Resolve maps a user phrase to an entry of vocabulary.
//
// The phrase is first tried as a case-insensitive regular expression against
// each entry; the first hit wins. If the phrase is not a valid expression or
// matches nothing, regex metacharacters are stripped and the first entry
// containing the remaining text (case-insensitively) wins. There is no
// scoring: callers must pass a stably ordered vocabulary.
func Resolve(vocabulary []string, phrase string) (string, error) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return "", notFound(vocabulary, phrase)
	}

	if re, err := regexp.Compile("(?i)" + phrase); err == nil {
		for _, entry := range vocabulary {
			if re.MatchString(entry) {
				return entry, nil
			}
		}
	}

	needle := strings.ToLower(strings.Join(strings.Fields(regexMeta.ReplaceAllString(phrase, " ")), " "))
	if needle != "" {
		for _, entry := range vocabulary {
			if strings.Contains(strings.ToLower(entry), needle) {
				return entry, nil
			}
		}
	}

	return "", notFound(vocabulary, phrase)
}

func notFound(vocabulary []string, phrase string) error {
	return errors.New(errors.CodeMetricNotFound,
		fmt.Sprintf("no metric matches %q (available: %s)", phrase, strings.Join(vocabulary, ", ")), nil).
		WithContext("phrase", phrase).
		WithContext("vocabulary", append([]string(nil), vocabulary...))
}
