// Package event sequences carrier events to the host application.
//
// The protocol engine raises events (INIT, LTE_LINK_UP, REGISTERED,
// DEFERRED, FOTA_START, REBOOT, ERROR, ...). The Dispatcher validates each
// one, delivers it to the host Handler, notifies Observers and tracks the
// session state.
//
// # Architecture
//
//	┌──────────────┐  Dispatch / Post   ┌──────────────────────────────────┐
//	│   Engine     │───────────────────▶│            Dispatcher            │
//	└──────────────┘                    │                                  │
//	                                    │  1. Validate (payload matches)   │
//	                                    │  2. Admit (INIT first)           │
//	                                    │  3. Handler.HandleEvent ────────────▶ host
//	                                    │  4. Session.Apply                │
//	                                    │  5. Observers ──────────────────────▶ journal, MQTT, WebSocket
//	                                    │  6. Rebooter (REBOOT, proceed)   │
//	                                    └──────────────────────────────────┘
//
// # Session states
//
//	UNINIT → INITIALIZED → LINK_UP ⇄ LINK_DOWN / POWERED_OFF
//	                       LINK_UP → BOOTSTRAPPED → REGISTERED
//	any → REBOOTING → (INIT) → INITIALIZED
//
// DEFERRED does not change the state. It attaches a retry annotation that
// is cleared by the next state-changing event. FOTA_START marks an update
// in progress until a FOTA error or a new INIT. ERROR is accepted in every
// state, including before INIT. The engine must raise INIT first; any other
// kind before it returns ErrNotInitialized and is neither handled nor queued.
//
// # Payload lifetime
//
// Byte payloads are copied before delivery and the copy is dropped when
// Dispatch returns. Handlers and observers that need the data later must
// copy it.
//
// # Thread Safety
//
// Exactly one event is in flight at a time. A handler, observer or
// Rebooter that calls Dispatch gets ErrReentrantDispatch, whatever
// context it passes; it may call Post.
package event
