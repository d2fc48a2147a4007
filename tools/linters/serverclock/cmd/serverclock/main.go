package main

import (
	"github.com/rezkam/jobmongo/tools/linters/serverclock"
	"golang.org/x/tools/go/analysis/singlechecker"
)

func main() {
	singlechecker.Main(serverclock.Analyzer)
}
