// Package state holds the client-side application state: one slice per
// concern (session, catalog, ledger, directory), each advanced by a pure
// reducer. A Store owns one instance of every slice for one running client.
package state

type SessionEvent interface{ sessionEvent() }
type CatalogEvent interface{ catalogEvent() }
type LedgerEvent interface{ ledgerEvent() }
type DirectoryEvent interface{ directoryEvent() }

// Loading toggles the loading flag of whichever slice it is dispatched to.
type Loading struct{ On bool }

// Failed records an error message on a slice and clears its loading flag.
type Failed struct{ Message string }

// ErrorCleared resets the error field of a slice.
type ErrorCleared struct{}

func (Loading) sessionEvent()   {}
func (Loading) catalogEvent()   {}
func (Loading) ledgerEvent()    {}
func (Loading) directoryEvent() {}

func (Failed) sessionEvent()   {}
func (Failed) catalogEvent()   {}
func (Failed) ledgerEvent()    {}
func (Failed) directoryEvent() {}

func (ErrorCleared) sessionEvent()   {}
func (ErrorCleared) catalogEvent()   {}
func (ErrorCleared) ledgerEvent()    {}
func (ErrorCleared) directoryEvent() {}

// CommonEvent is an event every slice accepts.
type CommonEvent interface {
	SessionEvent
	CatalogEvent
	LedgerEvent
	DirectoryEvent
}
