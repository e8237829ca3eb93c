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

// Package sprt implements the Simple Packet Relay Transport defined in
// V.150.1 Annex B: a small UDP-friendly framing with four transmission
// channels, selective reliability on two of them, and keepalive/ack-holdoff
// timers. The engine is single-threaded and callback-driven - it never
// touches a socket or a clock directly, so it can be embedded in whatever
// event loop the host chooses.
package sprt
