package fuzztests

import (
	"context"
	"testing"
	"time"

	"quill/internal/diag"
	"quill/internal/parser"
	"quill/internal/source"
	"quill/internal/testkit"
)

// parseTimeout flags inputs that make the parser loop.
const parseTimeout = 5 * time.Second

func FuzzParserBuildsAST(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clamp(input, maxFuzzInput)
		fs := source.NewFileSet()
		id := fs.AddVirtual("fuzz.tpl", input)
		bag := diag.NewBag(128)
		res := parser.ParseFile(fs, id, parser.Options{
			Reporter:  diag.BagReporter{Bag: bag},
			MaxErrors: 128,
		})
		if res.Builder == nil || !res.Root.IsValid() {
			t.Fatalf("parser returned no root")
		}
		if res.Errors == 0 && !bag.HasErrors() {
			if err := testkit.CheckSpanInvariants(res.Builder, res.Root, fs.Get(id)); err != nil {
				t.Fatalf("span invariants: %v", err)
			}
		}
	})
}

func FuzzParserNoHang(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clamp(input, maxFuzzInput)
		ctx, cancel := context.WithTimeout(context.Background(), parseTimeout)
		defer cancel()

		done := make(chan struct{})
		go func() {
			defer close(done)
			fs := source.NewFileSet()
			id := fs.AddVirtual("fuzz.tpl", input)
			_ = parser.ParseFile(fs, id, parser.Options{
				Reporter:  diag.BagReporter{Bag: diag.NewBag(128)},
				MaxErrors: 128,
			})
		}()
		select {
		case <-done:
		case <-ctx.Done():
			t.Fatalf("parser hung on %d bytes: %q", len(input), input[:min(len(input), 200)])
		}
	})
}
