package pipeline

import (
	"context"
	"strings"
	"testing"
)

var benchLine = "a line of text that mentions python somewhere in the middle"

// BenchmarkFilterPush measures one push through a Filter into a Discard sink.
func BenchmarkFilterPush(b *testing.B) {
	f := NewFilter(Contains("python"), NewDiscard[string]())
	if err := f.Prime(); err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := f.Push(ctx, benchLine); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkDirectCall is the baseline: the same work as plain function calls.
func BenchmarkDirectCall(b *testing.B) {
	var n int
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if strings.Contains(benchLine, "python") {
			n++
		}
	}
	_ = n
}

func BenchmarkBroadcastPush(b *testing.B) {
	root := NewBroadcast([]Stage[string]{
		NewFilter(Contains("python"), NewDiscard[string]()),
		NewFilter(Contains("swig"), NewDiscard[string]()),
		NewFilter(HasPrefix("a line"), NewDiscard[string]()),
	})
	if err := root.Prime(); err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = root.Push(ctx, benchLine)
	}
}
