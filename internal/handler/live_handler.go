package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vibha/vtblogs/internal/live"
	"github.com/vibha/vtblogs/internal/metrics"
	"github.com/vibha/vtblogs/internal/model"
)

// 記事コレクションの変更通知ペイロード（テーブル名）
const postsCollection = "blogs"

// LiveHandler はServer-Sent Eventsによるライブクエリ配信のHTTPハンドラー。
// 接続ごとにバインディングを1つ張り、コレクションの変更通知のたびに
// 全件スナップショットを1イベントとして配信する。差分配信は行わない。
type LiveHandler struct {
	service  ContentServiceInterface
	notifier live.Notifier
	metrics  metrics.MetricsCollector
}

// NewLiveHandler はLiveHandlerを生成する。
func NewLiveHandler(
	service ContentServiceInterface,
	notifier live.Notifier,
	collector metrics.MetricsCollector,
) *LiveHandler {
	return &LiveHandler{
		service:  service,
		notifier: notifier,
		metrics:  collector,
	}
}

// StreamPosts は記事一覧のライブスナップショットをSSEで配信する。
// GET /api/live/posts
func (h *LiveHandler) StreamPosts(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// onStateはバインディングのロック下で呼ばれるためブロックできない。
	// バッファ1のチャネルで最新スナップショットだけを保持する。
	states := make(chan live.State[[]*model.Post], 1)
	binding := live.NewBinding[[]*model.Post](h.notifier, nil, func(s live.State[[]*model.Post]) {
		select {
		case states <- s:
		default:
			select {
			case <-states:
			default:
			}
			states <- s
		}
	})
	defer func() {
		binding.Close()
		h.metrics.RecordLiveTeardown()
	}()

	binding.Bind(r.Context(), &live.Query[[]*model.Post]{
		Collection: postsCollection,
		Fetch:      h.service.ListPosts,
	}, live.ModeSubscribe)

	for {
		select {
		case <-r.Context().Done():
			return
		case state := <-states:
			if state.Loading {
				continue
			}
			if state.Err != nil {
				writeSSEEvent(w, "error", state.Err)
			} else {
				writeSSEEvent(w, "posts", toPostListResponse(state.Data))
				h.metrics.RecordLiveDelivery(postsCollection)
			}
			flusher.Flush()
		}
	}
}

// writeSSEEvent はSSEの1イベントを書き込む。
func writeSSEEvent(w http.ResponseWriter, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
