/*
Package streaming groups the data movement primitives of coflow.

  - channel: Typed channels with rendezvous, bounded and unbounded buffering,
    strict and lenient receives, and Select over several operations
  - stream: Lazy, single-use streams that can consume a channel
  - writer: Buffered writer whose buffer is owned by an actor

Blocking operations take a context.Context. Inside a scheduler job they park
the job instead of holding a worker.
*/
package streaming
