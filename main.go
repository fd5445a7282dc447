package main

import (
	"github.com/luma/homelink/cmd"
)

func main() {
	cmd.Execute()
}
