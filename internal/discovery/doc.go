// Package discovery locates raw-socket instruments on the local network
// via mDNS, so the controller resource address can be discovered instead
// of typed by hand.
package discovery
