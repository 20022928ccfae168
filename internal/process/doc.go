// Package process provides subprocess lifecycle management.
//
// Process wraps os/exec for a single capture pipeline:
//   - Stdout is handed to the caller as a raw byte stream
//   - Stderr is split into lines and logged through a pluggable LogParser
//   - Stop sends SIGINT, waits a grace period, then SIGKILLs
//   - Stop is safe to call any number of times from any goroutine
//
// Example usage:
//
//	p := process.New("video0", "ffmpeg", args, logger)
//	p.SetLogParser(logging.GetLogger("ffmpeg"), ffmpeg.ParseLogLevel)
//	stdout, err := p.Start()
//	if err != nil {
//	    return err
//	}
//	go consume(stdout)
//	defer p.Stop()
package process
