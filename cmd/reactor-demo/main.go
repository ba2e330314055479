// reactor-demo drives a socketpair ping-pong through the reactor and prints
// the metrics snapshot, as a smoke test for the submission/completion path.
package main

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/pawelgaczynski/giouring"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/go-reactor"
	"github.com/ehrlich-b/go-reactor/executor"
	"github.com/ehrlich-b/go-reactor/internal/logging"
)

var (
	entries uint32
	rounds  int
	verbose bool
)

func main() {
	root := &cobra.Command{
		Use:   "reactor-demo",
		Short: "Ping-pong bytes over a socketpair through the io_uring reactor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
	root.Flags().Uint32Var(&entries, "entries", reactor.DefaultEntries, "SQ/CQ ring depth")
	root.Flags().IntVar(&rounds, "rounds", 64, "number of ping-pong rounds")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	logConfig := logging.DefaultConfig()
	if verbose {
		logConfig.Level = logging.LevelDebug
	}
	logging.SetDefault(logging.NewLogger(logConfig))

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		return fmt.Errorf("socketpair: %w", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	exec, err := executor.New(reactor.Options{Entries: entries})
	if err != nil {
		return err
	}
	defer exec.Close()

	for i := 0; i < rounds; i++ {
		spawnRound(exec, fds[0], fds[1], byte(i))
	}

	if err := exec.Run(); err != nil {
		return err
	}

	fmt.Println(exec.Reactor().Metrics().Snapshot())
	return nil
}

// spawnRound queues one writer and one reader task for a single byte.
func spawnRound(exec *executor.Executor, rfd, wfd int, payload byte) {
	r := exec.Reactor()

	wbuf := []byte{payload}
	var wio *reactor.Oneshot[*executor.Task]
	exec.Spawn(func(t *executor.Task) bool {
		if wio == nil {
			wio = r.NewOneshot()
		}
		res, status := wio.Poll(func(sqe *giouring.SubmissionQueueEntry) {
			sqe.PrepareWrite(wfd, uintptr(unsafe.Pointer(&wbuf[0])), 1, 0)
		}, executor.Token(t))
		if status != reactor.StatusReady {
			return false
		}
		if res.Err != nil {
			logging.Default().Error("write failed", "error", res.Err)
		}
		return true
	})

	rbuf := []byte{0}
	var rio *reactor.Oneshot[*executor.Task]
	exec.Spawn(func(t *executor.Task) bool {
		if rio == nil {
			rio = r.NewOneshot()
		}
		res, status := rio.Poll(func(sqe *giouring.SubmissionQueueEntry) {
			sqe.PrepareRead(rfd, uintptr(unsafe.Pointer(&rbuf[0])), 1, 0)
		}, executor.Token(t))
		if status != reactor.StatusReady {
			return false
		}
		if res.Err != nil {
			logging.Default().Error("read failed", "error", res.Err)
		}
		return true
	})
}
