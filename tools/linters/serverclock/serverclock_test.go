package serverclock_test

import (
	"testing"

	"github.com/rezkam/jobmongo/tools/linters/serverclock"
	"golang.org/x/tools/go/analysis/analysistest"
)

func TestAnalyzer(t *testing.T) {
	testdata := analysistest.TestData()
	analysistest.Run(t, testdata, serverclock.Analyzer, "a")
}
