package intersection

import (
	"strconv"
	"strings"
)

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	if strings.HasSuffix(word, "ch") {
		return word + "es"
	}
	return word + "s"
}

func itoa(n uint64) string {
	return strconv.FormatUint(n, 10)
}
