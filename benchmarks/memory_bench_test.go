package benchmarks

import (
	"context"
	"fmt"
	"runtime"
	"testing"

	"github.com/comalice/xchart"
	"github.com/comalice/xchart/internal/production"
)

func bytesPer(n int, build func(i int)) uint64 {
	var before runtime.MemStats
	runtime.ReadMemStats(&before)
	for i := range n {
		build(i)
	}
	runtime.GC()
	var after runtime.MemStats
	runtime.ReadMemStats(&after)
	return (after.TotalAlloc - before.TotalAlloc) / uint64(n)
}

func BenchmarkMemoryFootprint(b *testing.B) {
	cfg := GenFlatConfig(1)
	machines := make([]*xchart.Machine, 1000)
	per := bytesPer(len(machines), func(i int) { machines[i] = MustMachine(cfg) })
	b.ReportMetric(float64(per)/1024, "KB/machine")
}

func BenchmarkMemoryFlat(b *testing.B) {
	for _, n := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("states=%d", n), func(b *testing.B) {
			cfg := GenFlatConfig(n)
			machines := make([]*xchart.Machine, 100)
			per := bytesPer(len(machines), func(i int) { machines[i] = MustMachine(cfg) })
			b.ReportMetric(float64(per)/1024, "KB/machine")
		})
	}
}

func BenchmarkMemoryDeep(b *testing.B) {
	for _, depth := range []int{5, 20, 50} {
		b.Run(fmt.Sprintf("depth=%d", depth), func(b *testing.B) {
			cfg := GenDeepConfig(depth)
			machines := make([]*xchart.Machine, 100)
			per := bytesPer(len(machines), func(i int) { machines[i] = MustMachine(cfg) })
			b.ReportMetric(float64(per)/1024, "KB/machine")
		})
	}
}

func BenchmarkSnapshotDecode(b *testing.B) {
	for _, hierarchical := range []bool{false, true} {
		b.Run(fmt.Sprintf("hierarchical=%v", hierarchical), func(b *testing.B) {
			data := GenSnapshotYAML(100, hierarchical)
			codec := production.YAMLCodec{}
			m := MustMachine(GenDeepConfig(5))
			if !hierarchical {
				m = MustMachine(GenFlatConfig(100))
			}
			b.ReportAllocs()
			for b.Loop() {
				s, err := codec.Decode(data)
				if err != nil {
					b.Fatal(err)
				}
				if _, err := m.Transition(context.Background(), s, "tick"); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
