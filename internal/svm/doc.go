// Package svm signs and broadcasts CCIP router instructions on an SVM
// chain. It provides the in-process transfer.Submitter, keypair loading,
// a failover RPC client and a reader for the router's token admin registry.
package svm
