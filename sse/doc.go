/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package sse implements the State Signalling Event protocol of V.150.1
// Annex C: a tiny four-byte-plus-extension event carried in an RTP payload,
// used to tell the far end about a media-state change (audio, VBD, modem
// relay, fax relay, text relay or text probe) and, depending on the
// negotiated reliability scheme, to get that notification there reliably
// over a lossy network.
//
// The engine here owns the three reliability schemes of C.4 (none, simple
// repetition, and explicit acknowledgement) and the RTP-timestamp-based
// duplicate suppression of C.4.1. It does not itself open a socket or
// schedule a timer; the host supplies those as callbacks, the same way the
// sprt package does.
package sse
