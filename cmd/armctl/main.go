package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config  string `long:"config" default:"armctl.json" description:"Path to the arm configuration file"`
	Sim     bool   `long:"sim" description:"Drive an in-memory arm instead of the servo bus"`
	Strict  bool   `long:"strict" description:"Reject invalid preset indices without recording them"`
	Verbose bool   `short:"v" long:"verbose" description:"Log every joint command"`

	Setup SetupCommand `command:"setup" description:"Find the arm's serial port and calibrate it"`
	Reset ResetCommand `command:"reset" description:"Fold the arm into its park pose"`
	Pose  PoseCommand  `command:"pose" description:"Move to a height and/or orientation preset"`
	Joint JointCommand `command:"joint" description:"Command a single joint angle"`
	Reach ReachCommand `command:"reach" alias:"ik" description:"Move the gripper tip to a point using inverse kinematics"`
	Info  InfoCommand  `command:"info" description:"Show link lengths and pose presets"`
	Drive DriveCommand `command:"drive" description:"Drive the arm from the keyboard"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "armctl - positional controller for a five joint arm"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
