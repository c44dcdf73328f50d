package api

// apiEndpoints enumerates every resource and action exposed under /1.0/,
// mirroring the api10 slice in the teacher's lxd/api.go.
var apiEndpoints = []APIEndpoint{
	pdusCmd,
	pduCmd,
	kvmsCmd,
	kvmCmd,
	initiatorsCmd,
	initiatorCmd,
	targetsCmd,
	targetCmd,
	targetBootDiskInfoCmd,
	targetMapDiskInfoCmd,
	logicalUnitsCmd,
	logicalUnitCmd,
	logicalUnitMountDevicePathCmd,
	logicalUnitRecreateCmd,
	logicalUnitRevertCmd,
	logicalUnitDumpCmd,
	logicalUnitRestoreCmd,
	snapshotsCmd,
	snapshotCmd,
}
