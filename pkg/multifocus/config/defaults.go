// Package config provides configuration management for the multifocus
// engine, its frame sources and the daemon.
package config

const appName = "multifocus"

// Default configuration values for multifocus.
const (
	// DefaultActuatorDriver runs without hardware.
	DefaultActuatorDriver = "none"

	// DefaultI2CAddress is the usual address of a VCM focus DAC.
	DefaultI2CAddress = 0x0c

	// DefaultBaudRate is the serial actuator line speed.
	DefaultBaudRate = 115200

	// DefaultFPS paces directory and simulated sources.
	DefaultFPS = 30.0

	// DefaultFrameWidth and DefaultFrameHeight size simulated frames.
	DefaultFrameWidth  = 640
	DefaultFrameHeight = 480

	// DefaultMetric is the sharpness measure.
	DefaultMetric = "laplacian"

	// DefaultLogMaxSize rolls the log file at this size.
	DefaultLogMaxSize = "10MB"

	// DefaultLogMaxAge is the number of days rolled logs are kept.
	DefaultLogMaxAge = 30

	// DefaultLogMaxBackups is the number of rolled logs kept.
	DefaultLogMaxBackups = 5

	// DefaultKeepScans is the number of scan reports kept in the store.
	DefaultKeepScans = 500
)

const defaultConfigYAML = `# Multifocus configuration

# Engine parameters. Runtime parameters can also be changed while the
# daemon runs; edits to this file are picked up automatically.
engine:
  work: true
  auto_start: false
  # Find every plan in one sweep. When false each plan is confirmed with
  # "multifocus next".
  auto_detect_plans: true
  number_of_plans: 3
  # Frames between a focus command and the first frame that shows it.
  latency: 3
  wait_after_start: 10
  # Frames spent on each plan while cycling.
  space_between_switch: 10
  # Sharpness region corners.
  roi1x: 0
  roi1y: 0
  roi2x: 640
  roi2y: 480
  # Initial plan list, e.g. "100;310;550;". Empty restores the stored list.
  plans: ""
  sweep:
    steps: 80
    step_size: 10
    pre_roll: 9
  calibration:
    settle_frames: 5
    jump_position: 500
    threshold: 0.25
    timeout: 60

# Focus actuator: none, serial or i2c
actuator:
  driver: none
  device: ""
  address: 12
  min_position: 0
  max_position: 1023
  serial:
    baud_rate: 115200
    data_bits: 8
    stop_bits: 1
    parity: N

# Frame source: simulate or dir
source:
  kind: simulate
  dir:
    path: ""
    pattern: "**.{png,jpg,jpeg,bmp,tif,tiff}"
    fps: 30
    loop: false
    follow: false
  simulate:
    width: 640
    height: 480
    fps: 30
    frames: 0        # 0 runs until stopped
    latency: 3
    planes:
      - {position: 100, peak: 800, width: 40}
      - {position: 310, peak: 1000, width: 40}
      - {position: 550, peak: 600, width: 40}

# Sharpness metric: laplacian or sobel
sharpness:
  metric: laplacian

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log rotation settings
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  # Per-component log levels
  components:
    engine: info
    actuator: info
    daemon: info

# Daemon configuration
daemon:
  # Automatically start the daemon when running multifocus commands
  auto_start: true

# Plan and scan history
store:
  keep_scans: 500
`
