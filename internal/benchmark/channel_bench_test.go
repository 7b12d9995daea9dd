package benchmark

import (
	"context"
	"sync"
	"testing"

	"github.com/vnykmshr/coflow/pkg/streaming/channel"
)

// BenchmarkChannelSend measures sends against one plain-goroutine consumer.
func BenchmarkChannelSend(b *testing.B) {
	capacities := []channel.Capacity{channel.Rendezvous, channel.Bounded(10), channel.Bounded(1000), channel.Unbounded}

	for _, capacity := range capacities {
		b.Run(capacity.String(), func(b *testing.B) {
			ch := channel.New[int](capacity)
			ctx := context.Background()

			done := make(chan struct{})
			go func() {
				defer close(done)
				for {
					if _, err := ch.Receive(ctx); err != nil {
						return
					}
				}
			}()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = ch.Send(ctx, i)
			}
			b.StopTimer()

			_ = ch.Close()
			<-done
		})
	}
}

// BenchmarkChannelContention measures several producers and consumers on one
// bounded channel.
func BenchmarkChannelContention(b *testing.B) {
	for _, producers := range []int{2, 4, 8, 16} {
		b.Run(workerLabel(producers), func(b *testing.B) {
			ch := channel.New[int](channel.Bounded(100))
			ctx := context.Background()

			consumers := max(1, producers/2)
			var consumerWg sync.WaitGroup
			consumerWg.Add(consumers)
			for i := 0; i < consumers; i++ {
				go func() {
					defer consumerWg.Done()
					for range ch.All(ctx) {
					}
				}()
			}

			b.ReportAllocs()
			b.ResetTimer()

			var producerWg sync.WaitGroup
			perProducer := b.N / producers
			producerWg.Add(producers)
			for p := 0; p < producers; p++ {
				go func() {
					defer producerWg.Done()
					for i := 0; i < perProducer; i++ {
						_ = ch.Send(ctx, i)
					}
				}()
			}

			producerWg.Wait()
			b.StopTimer()
			_ = ch.Close()
			consumerWg.Wait()
		})
	}
}

// BenchmarkChannelTryOperations measures the non-blocking probes.
func BenchmarkChannelTryOperations(b *testing.B) {
	ch := channel.New[int](channel.Bounded(1))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ch.TrySend(i)
		_, _, _ = ch.TryReceive()
	}
}

// BenchmarkSelect measures a two-way select where one branch is always ready.
func BenchmarkSelect(b *testing.B) {
	ctx := context.Background()
	ready := channel.New[int](channel.Unbounded)
	idle := channel.New[int](channel.Rendezvous)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ready.Send(ctx, i)
		_, _ = channel.Select(ctx,
			channel.OnReceive(idle, func(v int) (int, error) { return v, nil }),
			channel.OnReceive(ready, func(v int) (int, error) { return v, nil }),
		)
	}
}
