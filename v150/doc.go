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

// Package v150 implements the V.150.1 modem relay message engine: the
// capability exchange (INIT, XID_XCHG, PROF_XCHG), joint modem negotiation
// (JM_INFO, START_JM, CONNECT), the break and cleardown messages, the nine
// I_* information-stream encodings, and the joint connection state machine
// that tracks near and far endpoint state through them.
//
// An Engine owns one sprt.Engine and one sse.Engine. Messages travel over
// SPRT channel 2 (control) or channels 1/3 (information streams). The
// sse.Engine is stored and returned by SSEEngine, but Engine itself sends
// and receives nothing through it; media-state changes reach the connection
// state machine only through MR_EVENT.
// Like its two collaborators, Engine never touches a socket or a clock.
package v150
