package main

import "jsoncache/cmd"

func main() {
	cmd.Execute()
}
