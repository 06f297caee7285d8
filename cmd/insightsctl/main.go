package main

import "github.com/pilab-dev/creator-insights/cmd/insightsctl/cmd"

func main() {
	cmd.Execute()
}
