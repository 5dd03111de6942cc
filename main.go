package main

import "github.com/jake-scott/netatmo-cameras/cmd"

func main() {
	cmd.Execute()
}
