package core

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

const DefaultCodePrefix = "WZ"

// GenerateEmployeeCode builds codes of the form
// <prefix><first 2 letters of first name><first 2 of last name><join year><4 digit serial>,
// e.g. WZJODO20220001. Missing letters are padded with X.
func GenerateEmployeeCode(prefix, firstName, lastName string, joined time.Time, serial int) string {
	return fmt.Sprintf("%s%s%s%04d%04d", prefix, initials(firstName), initials(lastName), joined.Year(), serial)
}

func initials(name string) string {
	var letters []rune
	for _, r := range name {
		if unicode.IsLetter(r) && r < unicode.MaxASCII {
			letters = append(letters, unicode.ToUpper(r))
			if len(letters) == 2 {
				break
			}
		}
	}
	for len(letters) < 2 {
		letters = append(letters, 'X')
	}
	return strings.ToUpper(string(letters))
}
