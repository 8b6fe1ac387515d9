package main

import "github.com/ethanolivertroy/compliance-notifier/cmd"

func main() {
	cmd.Execute()
}
