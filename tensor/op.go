package tensor

// Op is a reduction operator. The engine only ever performs sum-allreduce,
// but the device-collective and host-transport contracts are expressed in
// terms of a general operator, mirroring the teacher's base.OP.
type Op int

const (
	SUM Op = iota
	MIN
	MAX
	PROD
)

var opNames = map[Op]string{
	SUM:  "SUM",
	MIN:  "MIN",
	MAX:  "MAX",
	PROD: "PROD",
}

func (o Op) String() string {
	return opNames[o]
}
