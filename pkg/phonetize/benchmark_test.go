package phonetize

import (
	"context"
	"fmt"
	"testing"

	"github.com/japaniel/textselect/pkg/db"
	"github.com/japaniel/textselect/pkg/phonetic"
)

func generateBenchmarkSentences(n int) []string {
	sentences := make([]string, n)
	for i := range sentences {
		sentences[i] = fmt.Sprintf("これはテスト文です%d", i)
	}
	return sentences
}

func BenchmarkPhonetize(b *testing.B) {
	a, err := phonetic.NewAnalyzer(nil)
	if err != nil {
		b.Fatalf("Failed to create analyzer: %v", err)
	}
	sentences := generateBenchmarkSentences(1000)
	counts := []int{1, 2, 4, 8}

	for _, workers := range counts {
		b.Run(fmt.Sprintf("Workers_%d", workers), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				conn, err := db.Open(":memory:")
				if err != nil {
					b.Fatalf("failed to open db: %v", err)
				}
				_, _ = conn.Exec("PRAGMA synchronous = OFF")
				corpusID, err := db.CreateOrGetCorpus(conn, fmt.Sprintf("bench_%d_%d", workers, i), string(phonetic.Triphones))
				if err != nil {
					conn.Close()
					b.Fatalf("CreateOrGetCorpus failed: %v", err)
				}
				p := NewPhonetizer(a, phonetic.Triphones, conn)
				p.Workers = workers
				p.BatchSize = 100
				b.StartTimer()

				_, err = p.Run(context.Background(), corpusID, sentences)
				b.StopTimer()
				conn.Close()
				if err != nil {
					b.Fatalf("Run failed: %v", err)
				}
			}
		})
	}
}
