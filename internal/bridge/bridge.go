package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-scripts/liimport/internal/browser"
	"github.com/go-scripts/liimport/internal/protocol"
)

// Global is the window property the delivery bridge registers under in the
// host application's tab.
const Global = "__liImportBridge"

// Script is the page-scoped receiver injected into the host application tab.
// It hands a delivered profile to the host app through a DOM event and acks
// explicitly so the orchestrator can tell "delivered" from "no receiver".
// Injection is idempotent and re-delivery of an already-seen correlation id
// is acked without dispatching a second event.
const Script = `(() => {
	if (window.__liImportBridge) {
		return;
	}
	const delivered = new Set();
	window.__liImportBridge = {
		dispatch: async (msg) => {
			if (msg.kind === "ping") {
				return { ok: true, correlationId: msg.correlationId, payload: { ready: true } };
			}
			if (msg.kind === "deliver") {
				if (!delivered.has(msg.correlationId)) {
					delivered.add(msg.correlationId);
					window.dispatchEvent(new CustomEvent("liimport:profile", {
						detail: msg.payload,
					}));
				}
				return { ok: true, correlationId: msg.correlationId, payload: { delivered: true } };
			}
			return { ok: false, correlationId: msg.correlationId, error: "unsupported kind: " + msg.kind };
		},
	};
})();`

// deliverBody is the payload of a deliver request.
type deliverBody struct {
	Profile json.RawMessage `json:"profile"`
}

// ack is the payload of a successful deliver response.
type ack struct {
	Delivered bool `json:"delivered"`
}

// Bridge sends normalized profiles into the host application's tab.
type Bridge struct {
	host browser.ScriptHost
}

// New returns a Bridge bound to a script host.
func New(host browser.ScriptHost) *Bridge {
	return &Bridge{host: host}
}

// Inject installs the receiver script into the tab.
func (b *Bridge) Inject(ctx context.Context, tab *browser.TabHandle) error {
	return b.host.Inject(ctx, tab, Script)
}

// TryDeliver attempts one delivery. protocol.ErrNoReceiver means the bridge
// script is absent; the caller decides whether to inject and retry.
func (b *Bridge) TryDeliver(ctx context.Context, tab *browser.TabHandle, profile json.RawMessage) error {
	msg, err := protocol.NewMessage(protocol.KindDeliver, deliverBody{Profile: profile})
	if err != nil {
		return err
	}
	resp, err := b.host.Transport(tab, Global).Request(ctx, msg)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return fmt.Errorf("bridge rejected delivery: %w", err)
	}
	var a ack
	if err := resp.Decode(&a); err != nil {
		return fmt.Errorf("decode delivery ack: %w", err)
	}
	if !a.Delivered {
		return fmt.Errorf("bridge did not acknowledge delivery")
	}
	return nil
}
