package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/go-scripts/liimport/internal/protocol"
)

// ScriptHost is what the page-scoped script packages need from the browser:
// a transport into a tab's registered script and a way to install one.
type ScriptHost interface {
	Transport(tab *TabHandle, global string) protocol.Transport
	Inject(ctx context.Context, tab *TabHandle, src string) error
}

// Transport returns a protocol.Transport that talks to the script registered
// under window[global] in the given tab.
func (b *Browser) Transport(tab *TabHandle, global string) protocol.Transport {
	return &tabTransport{tab: tab, global: global}
}

// tabTransport delivers a request by evaluating the receiver's dispatch
// function in the page. A missing receiver surfaces as ErrNoReceiver so the
// caller can inject and retry.
type tabTransport struct {
	tab    *TabHandle
	global string
}

func (t *tabTransport) Request(ctx context.Context, msg protocol.Message) (protocol.Response, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("marshal message: %w", err)
	}

	js := fmt.Sprintf(`(async () => {
		const receiver = window[%q];
		if (!receiver || typeof receiver.dispatch !== "function") {
			return null;
		}
		return JSON.stringify(await receiver.dispatch(%s));
	})()`, t.global, string(body))

	runCtx, cancel := mergeTabContext(ctx, t.tab)
	defer cancel()

	var raw json.RawMessage
	err = chromedp.Run(runCtx, chromedp.Evaluate(js, &raw,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
	if err != nil {
		if t.tab.ctx.Err() != nil {
			return protocol.Response{}, ErrTabGone
		}
		return protocol.Response{}, fmt.Errorf("send %s to tab %s: %w", msg.Kind, t.tab.ID, err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return protocol.Response{}, protocol.ErrNoReceiver
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return protocol.Response{}, fmt.Errorf("decode response envelope: %w", err)
	}
	var resp protocol.Response
	if err := json.Unmarshal([]byte(encoded), &resp); err != nil {
		return protocol.Response{}, fmt.Errorf("decode response: %w", err)
	}
	if resp.CorrelationID != msg.CorrelationID {
		return protocol.Response{}, fmt.Errorf("correlation mismatch: sent %s, got %s",
			msg.CorrelationID, resp.CorrelationID)
	}
	return resp, nil
}
