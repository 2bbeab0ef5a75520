// Package writers turns records into serialized text outputs.
//
// Design:
//   • Writers own all presentation knowledge (FASTA/FASTQ/TSV framing, naming,
//     quality fill).
//   • Rendering happens into worker-local Buffers; only Flush touches a sink.
package writers
