//go:build !linux && !windows

package source

func platformQueries(Runner) queries {
	return queries{}
}
