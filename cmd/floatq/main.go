// Command floatq asks the float query pipeline questions from the terminal.
//
//	floatq ask "average temperature at 1000 m"
//	floatq ask --json "show me a salinity profile"
//	floatq profiles --active
//	floatq serve
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
