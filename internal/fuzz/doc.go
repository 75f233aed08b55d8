// Package fuzztests holds fuzz harnesses for the template front end and
// the full compile pipeline. They guard against panics and hangs on
// arbitrary input; corpora seed from testdata/.
package fuzztests
