// Command apcclean cleans APC spreadsheets from the command line.
package main

import "github.com/JonMunkholm/apcclean/internal/cli"

func main() {
	cli.Execute()
}
