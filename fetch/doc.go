// Package fetch is the single cancellation convention for data loads.
//
// Every load that can be superseded (a page reload, a guard-config refresh on
// token change) runs through a [Latest] slot. Starting a new call in the slot
// cancels the previous one, and a result that arrives after it was superseded
// is reported as [ErrSuperseded] instead of being applied.
package fetch
