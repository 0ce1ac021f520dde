package theme

import (
	"fmt"
)

// Banner returns the xengage startup banner.
func Banner() string {
	const cyan = "\033[36m"
	const magenta = "\033[35m"
	const yellow = "\033[33m"
	const reset = "\033[0m"

	art := "" +
		"  ⚡  " + magenta + "XENGAGE" + reset + "  ⚡\n" +
		cyan + "   ▄██▄ ▄██▄   engage smarter,\n" + reset +
		cyan + "   ▀██▀ ▀██▀   stay under budget\n" + reset +
		yellow + "   ─────────────────────────────\n" + reset +
		"   rate-limited engagement automation for X\n"
	return art
}

// PrintBanner prints the banner to stdout.
func PrintBanner() {
	fmt.Print(Banner())
}
