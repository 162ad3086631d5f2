package serializer

import (
	"context"
	"testing"
)

func BenchmarkSerialize(b *testing.B) {
	s := New(testRegistry(b))
	obj := sample()

	b.Run("Original", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, err := s.Serialize(obj, reach); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("MCC", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, err := s.Serialize(obj, reachMCC); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkDeserialize(b *testing.B) {
	s := New(testRegistry(b))
	blob, err := s.Serialize(sample(), reach)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.SetBytes(int64(len(blob.Data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Deserialize(blob, reach); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSerializeAll(b *testing.B) {
	s := New(testRegistry(b))
	jobs := make([]Job, 64)
	for i := range jobs {
		jobs[i] = Job{Name: "sample", Object: sample()}
	}

	for _, workers := range []int{1, 4} {
		b.Run(workerName(workers), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := s.SerializeAll(context.Background(), jobs, reach, workers); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func workerName(n int) string {
	if n == 1 {
		return "Serial"
	}
	return "Parallel"
}
