// Package live はストアのコレクション変更に追随するクエリバインディングを提供する。
//
// バインディングはクエリ記述（コレクション名と取得関数）を購読へ変換し、
// 変更通知のたびに全件スナップショットを再取得して購読者へ届ける。
// 差分配信や重複排除は行わない。届くのは常に完全なスナップショットである。
package live

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vibha/vtblogs/internal/model"
)

// Mode はバインディングの動作モードを表す。
type Mode int

const (
	// ModeSubscribe は初回取得後、コレクションの変更通知ごとに再取得する。
	ModeSubscribe Mode = iota
	// ModeFetchOnce は一度だけ取得し、変更には追随しない。
	ModeFetchOnce
)

// Query はバインディング対象のクエリ記述。
// Collectionは変更通知のペイロードと照合されるコレクション名。
// Fetchはスナップショット全体を取得する。
type Query[T any] struct {
	Collection string
	Fetch      func(ctx context.Context) (T, error)
}

// State はバインディングの観測可能な状態。
// Loading中はDataとErrは前回値のまま保持される。エラー時はDataがゼロ値へ戻る。
type State[T any] struct {
	Loading bool
	Data    T
	Err     *model.APIError
}

// DiagnosticSink はバインディングの失敗を購読者の生存に関係なく記録する。
// 購読者が破棄済みでも失敗は運用ログとして残す必要があるため、
// 世代ガードの手前で呼ばれる。
type DiagnosticSink interface {
	Report(collection string, err error)
}

// SlogSink はslogへ記録するDiagnosticSink実装。
type SlogSink struct{}

// Report は失敗を警告ログとして記録する。
func (SlogSink) Report(collection string, err error) {
	slog.Warn("live binding fetch failed",
		slog.String("collection", collection),
		slog.String("error", err.Error()),
	)
}

// Binding はクエリ1つ分のライブバインディング。
// Bindを呼び直すと前回の購読は破棄され、世代カウンタにより
// 破棄済み購読からの遅延配信は捨てられる。
type Binding[T any] struct {
	notifier Notifier
	sink     DiagnosticSink
	onState  func(State[T])

	mu          sync.Mutex
	generation  uint64
	state       State[T]
	cancel      context.CancelFunc
	unsubscribe func()
	closed      bool
}

// NewBinding はBindingを生成する。onStateは状態が変わるたびに呼ばれる。
// sinkがnilの場合はSlogSinkが使われる。
func NewBinding[T any](notifier Notifier, sink DiagnosticSink, onState func(State[T])) *Binding[T] {
	if sink == nil {
		sink = SlogSink{}
	}
	if onState == nil {
		onState = func(State[T]) {}
	}
	return &Binding[T]{
		notifier: notifier,
		sink:     sink,
		onState:  onState,
	}
}

// Bind はクエリを購読へ変換する。呼ぶたびに前回の購読は破棄される。
// queryがnilの場合、バインディングは不活性になる
// （loading=false、データなし、エラーなし。取得も購読も行わない）。
func (b *Binding[T]) Bind(ctx context.Context, query *Query[T], mode Mode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.teardownLocked()
	b.generation++
	gen := b.generation

	if query == nil {
		var zero T
		b.state = State[T]{Loading: false, Data: zero, Err: nil}
		b.onState(b.state)
		return
	}

	b.state.Loading = true
	b.state.Err = nil
	b.onState(b.state)

	bindCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	var changes <-chan struct{}
	if mode == ModeSubscribe {
		ch, unsubscribe := b.notifier.Subscribe(query.Collection)
		changes = ch
		b.unsubscribe = unsubscribe
	}

	go b.run(bindCtx, gen, query, changes)
}

// run は初回取得と（Subscribeモードの場合）変更追随を行う。
func (b *Binding[T]) run(ctx context.Context, gen uint64, query *Query[T], changes <-chan struct{}) {
	b.fetch(ctx, gen, query)

	if changes == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			b.fetch(ctx, gen, query)
		}
	}
}

// fetch はスナップショットを1回取得し、世代が一致する場合のみ状態へ反映する。
func (b *Binding[T]) fetch(ctx context.Context, gen uint64, query *Query[T]) {
	data, err := query.Fetch(ctx)

	if err != nil {
		// 失敗は世代ガードの手前で必ず記録する。
		b.sink.Report(query.Collection, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || gen != b.generation {
		// 破棄済みの購読からの遅延配信。現在の状態を汚染しない。
		return
	}

	if err != nil {
		var zero T
		b.state = State[T]{Loading: false, Data: zero, Err: model.ClassifyStoreError(err)}
	} else {
		b.state = State[T]{Loading: false, Data: data, Err: nil}
	}
	b.onState(b.state)
}

// State は現在の状態のコピーを返す。
func (b *Binding[T]) State() State[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Close はバインディングを破棄する。Closeから戻った後、onStateは呼ばれない。
func (b *Binding[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.generation++
	b.teardownLocked()
}

// teardownLocked は進行中の取得と購読を破棄する。呼び出し側がmuを保持すること。
func (b *Binding[T]) teardownLocked() {
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}
}
