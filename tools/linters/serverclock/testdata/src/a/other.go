package a

import "time"

func bad() {
	_ = time.Now() // want "time.Now\\(\\) is not allowed in internal/mongostore outside dbcontext.go; read DbContext.GetServerTimeUtc instead"
}

func nolintGeneral() {
	//nolint
	_ = time.Now()
}

func nolintSpecific() {
	_ = time.Now() //nolint:serverclock
}

func nolintOtherLinter() {
	_ = time.Now() //nolint:otherlinter // want "time.Now\\(\\) is not allowed in internal/mongostore outside dbcontext.go; read DbContext.GetServerTimeUtc instead"
}
