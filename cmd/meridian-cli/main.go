package main

import (
	"github.com/meridian-data/meridian/internal/metacli"
)

func main() {
	metacli.Execute()
}
