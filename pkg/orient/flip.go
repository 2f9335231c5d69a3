// Package orient corrects the in-plane orientation of acquired image stacks.
package orient

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"breastimage/internal/models"
)

// ErrInvalidInput is returned when there is no image to flip
var ErrInvalidInput = errors.New("invalid input")

// ProgressFunc receives the number of finished slices after each slice.
// Calls are serialized.
type ProgressFunc func(done, total int)

type options struct {
	workers  int
	progress ProgressFunc
}

// Option configures Flip
type Option func(*options)

// WithWorkers flips up to n slices concurrently. Each worker holds its own
// one-slice scratch buffer. n <= 1 runs on the calling goroutine.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithProgress reports progress after every slice
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// ImageNode is anything that carries an image buffer, such as a volume
type ImageNode interface {
	ImageData() *models.Image
}

// Flip rotates every k slice of img by 180 degrees in place: voxel (i,j,k)
// receives the value previously at (nx-1-i, ny-1-j, k). The slice axis,
// spacing and origin are left alone.
//
// Each slice is copied to a scratch buffer before it is rewritten, so extra
// memory is one slice per worker. The context is checked between slices; on
// cancellation every slice is either fully flipped or untouched and the
// returned error wraps ctx.Err().
func Flip(ctx context.Context, img *models.Image, opts ...Option) error {
	if img == nil || len(img.Data) == 0 {
		return fmt.Errorf("%w: no image data", ErrInvalidInput)
	}
	if err := img.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	o := options{workers: 1}
	for _, opt := range opts {
		opt(&o)
	}

	total := img.Dims[2]
	sliceBytes := img.SliceBytes()
	elem := img.Scalar.Size()

	if o.workers <= 1 {
		scratch := make([]byte, sliceBytes)
		for k := 0; k < total; k++ {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("flip cancelled after %d of %d slices: %w", k, total, err)
			}
			flipSlice(img.Data[k*sliceBytes:(k+1)*sliceBytes], scratch, elem)
			if o.progress != nil {
				o.progress(k+1, total)
			}
		}
		return nil
	}

	return flipParallel(ctx, img, o, sliceBytes, elem)
}

// flipParallel hands slices to a fixed pool of workers
func flipParallel(ctx context.Context, img *models.Image, o options, sliceBytes, elem int) error {
	total := img.Dims[2]
	workers := o.workers
	if workers > total {
		workers = total
	}

	jobs := make(chan int)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scratch := make([]byte, sliceBytes)
			for k := range jobs {
				flipSlice(img.Data[k*sliceBytes:(k+1)*sliceBytes], scratch, elem)

				mu.Lock()
				done++
				if o.progress != nil {
					o.progress(done, total)
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for k := 0; k < total; k++ {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break feed
		case jobs <- k:
		}
	}
	close(jobs)
	wg.Wait()

	if done < total {
		return fmt.Errorf("flip cancelled after %d of %d slices: %w", done, total, ctx.Err())
	}
	return nil
}

// flipSlice reflects both in-plane axes of one slice. Element p of the
// output is element (n-1-p) of the input, which is the same as reading
// (nx-1-i, ny-1-j) for p = j*nx + i.
func flipSlice(slice, scratch []byte, elem int) {
	copy(scratch, slice)
	n := len(slice) / elem
	for p := 0; p < n; p++ {
		src := (n - 1 - p) * elem
		copy(slice[p*elem:(p+1)*elem], scratch[src:src+elem])
	}
}

// FlipVolume flips the image of a volume. The volume's matrices are not
// changed.
func FlipVolume(ctx context.Context, node ImageNode, opts ...Option) error {
	if node == nil {
		return fmt.Errorf("%w: no volume", ErrInvalidInput)
	}
	return Flip(ctx, node.ImageData(), opts...)
}
