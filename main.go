package main

import "github.com/KaramelBytes/listings-eda/cmd"

func main() {
	cmd.Execute()
}
