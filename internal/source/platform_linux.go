//go:build linux

package source

func platformQueries(run Runner) queries {
	return queries{
		zones: SysfsZones("/sys/class/thermal"),
		disks: Smartctl(run, "/dev/sd?"),
	}
}
