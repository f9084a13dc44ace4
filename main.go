package main

import "github.com/kidoz/insightvm-workflow-go/cmd"

func main() {
	cmd.Execute()
}
