package live

import (
	"log/slog"
	"sync"
	"time"

	"github.com/lib/pq"
)

// NotifyChannel はストアのトリガが発火するPostgreSQLのNOTIFYチャネル名。
// ペイロードは変更されたコレクション名（テーブル名）。
const NotifyChannel = "vtblogs_changes"

// Notifier はコレクション変更通知の購読インターフェース。
type Notifier interface {
	// Subscribe は指定コレクションの変更シグナルチャネルと購読解除関数を返す。
	// シグナルは変更があったことだけを伝える。内容はバインディングが再取得する。
	Subscribe(collection string) (<-chan struct{}, func())
}

// PGNotifier はpq.ListenerによるNotifier実装。
// LISTEN vtblogs_changes で受けた通知をコレクション別にファンアウトする。
type PGNotifier struct {
	listener *pq.Listener

	mu     sync.Mutex
	subs   map[string]map[uint64]chan struct{}
	nextID uint64
	done   chan struct{}
}

// NewPGNotifier は接続を張りLISTENを開始したPGNotifierを返す。
// 接続断はpq.Listenerが自動で再接続し、再接続イベントはログに残る。
func NewPGNotifier(databaseURL string) (*PGNotifier, error) {
	listener := pq.NewListener(databaseURL, 10*time.Second, time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				slog.Warn("pg listener event",
					slog.Int("event", int(ev)),
					slog.String("error", err.Error()),
				)
			}
		},
	)

	if err := listener.Listen(NotifyChannel); err != nil {
		listener.Close()
		return nil, err
	}

	n := &PGNotifier{
		listener: listener,
		subs:     make(map[string]map[uint64]chan struct{}),
		done:     make(chan struct{}),
	}
	go n.dispatch()
	return n, nil
}

// dispatch は通知をコレクション別の購読者へ配送する。
func (n *PGNotifier) dispatch() {
	for {
		select {
		case <-n.done:
			return
		case notification := <-n.listener.Notify:
			if notification == nil {
				// 再接続直後はnilが届く。取りこぼした可能性があるので全購読者を起こす。
				n.wakeAll()
				continue
			}
			n.wake(notification.Extra)
		}
	}
}

// wake は指定コレクションの購読者へシグナルを送る。
// チャネルが詰まっている場合は捨てる。バインディングは受信のたびに
// 全件を再取得するため、未処理シグナルの重複保持に意味はない。
func (n *PGNotifier) wake(collection string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs[collection] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (n *PGNotifier) wakeAll() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, subs := range n.subs {
		for _, ch := range subs {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}
}

// Subscribe はNotifierを実装する。
func (n *PGNotifier) Subscribe(collection string) (<-chan struct{}, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	id := n.nextID
	ch := make(chan struct{}, 1)

	if n.subs[collection] == nil {
		n.subs[collection] = make(map[uint64]chan struct{})
	}
	n.subs[collection][id] = ch

	unsubscribe := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs[collection], id)
	}
	return ch, unsubscribe
}

// Close は配送を停止しLISTEN接続を閉じる。
func (n *PGNotifier) Close() error {
	close(n.done)
	return n.listener.Close()
}

// compile-time interface check
var _ Notifier = (*PGNotifier)(nil)
