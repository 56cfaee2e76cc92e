/*
Package drip defines the common interfaces that tie the payout ledgers
together: messages and transactions, handlers and decorators, addresses
and conditions, the key-value store contracts and the execution context.

The actual ledgers live in subpackages of x. Every mutating operation is
a message processed by a handler; every handler either fully commits its
effects or fails without touching the store.
*/
package drip
