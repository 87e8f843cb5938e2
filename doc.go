/*
 *
 * Copyright 2023 CubeFS authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

/*

# zlog: a shared log stored in object class plugins

## Why object classes?

1, the sequencer only hands out positions, every entry is stored next to the data it indexes

2, a log operation and its epoch check run as one atomic call on one object

3, the same objects can be laid out three ways and compared with the phydesign probes

## Data Model

* Object, a named byte stream with xattrs, an omap and an omap header.

* Epoch, the fence sealed into each object. Writers with an old epoch are turned away.

* Position, the log address, mapped to an object by the stripe layout.

* Entry, the payload and state of one position: unused, written or invalidated.

* Projection, the epoch-numbered view of the log, stored write-once and gapless.

## Architecture

A zlogd server hosts three object classes:

* zlog, the log protocol: seal, write, read, fill, trim, invalidate, max_position, projections

* zlog_bench, append micro benchmarks

* phydesign, probes of the storage primitives a log is built from

Every server provides the classes over gRPC and stats over a RESTful API.

### Index strategies

omap, hybrid (omap index with data in the byte stream) and striped (fixed slots)

### Storage

all objects of a server live in a single rocksdb instance

## Building Blocks

* gRPC
* Rocksdb
* Prometheus

*/

package zlog
