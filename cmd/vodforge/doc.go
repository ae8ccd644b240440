// Command vodforge submits video transcoding jobs, runs the HLS worker that
// processes them, and inspects or maintains the durable job queue.
//
// A typical flow:
//
//	vodforge submit --id v1 /media/in/v1.mp4
//	vodforge worker
//	vodforge status v1 --wait
package main
