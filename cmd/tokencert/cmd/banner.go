package cmd

import (
	"fmt"
)

const banner = `
  _______    _              _____          _
 |__   __|  | |            / ____|        | |
    | | ___ | | _____ _ __| |     ___ _ __| |_
    | |/ _ \| |/ / _ \ '_ \ |    / _ \ '__| __|
    | | (_) |   <  __/ | | | |___  __/ |  | |_
    |_|\___/|_|\_\___|_| |_|\_____\___|_|   \__|
`

func printBanner() {
	fmt.Printf("\x1b[34m%s\x1b[0m", banner)
	fmt.Printf("\x1b[32m  Certificate Lifecycle Service - Version %s\x1b[0m\n\n", Version)
}
