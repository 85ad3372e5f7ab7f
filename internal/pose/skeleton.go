package pose

// Body landmark indices of the 33-point topology emitted by the pose model.
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumJoints      = 33
)

// Connection is an undirected skeleton edge between two joint indices.
type Connection struct {
	A, B int
}

// Connections is the skeleton edge table used by renderers. Treat it as
// read-only.
var Connections = []Connection{
	{Nose, LeftEyeInner}, {LeftEyeInner, LeftEye}, {LeftEye, LeftEyeOuter}, {LeftEyeOuter, LeftEar},
	{Nose, RightEyeInner}, {RightEyeInner, RightEye}, {RightEye, RightEyeOuter}, {RightEyeOuter, RightEar},
	{MouthLeft, MouthRight},
	{LeftShoulder, RightShoulder}, {LeftShoulder, LeftElbow}, {LeftElbow, LeftWrist},
	{LeftWrist, LeftPinky}, {LeftWrist, LeftIndex}, {LeftWrist, LeftThumb}, {LeftPinky, LeftIndex},
	{RightShoulder, RightElbow}, {RightElbow, RightWrist},
	{RightWrist, RightPinky}, {RightWrist, RightIndex}, {RightWrist, RightThumb}, {RightPinky, RightIndex},
	{LeftShoulder, LeftHip}, {RightShoulder, RightHip}, {LeftHip, RightHip},
	{LeftHip, LeftKnee}, {RightHip, RightKnee}, {LeftKnee, LeftAnkle},
	{LeftAnkle, LeftHeel}, {LeftHeel, LeftFootIndex}, {RightKnee, RightAnkle}, {RightAnkle, RightHeel},
	{RightHeel, RightFootIndex}, {LeftAnkle, LeftFootIndex}, {RightAnkle, RightFootIndex},
}

var jointNames = [NumJoints]string{
	"nose", "left_eye_inner", "left_eye", "left_eye_outer",
	"right_eye_inner", "right_eye", "right_eye_outer",
	"left_ear", "right_ear", "mouth_left", "mouth_right",
	"left_shoulder", "right_shoulder", "left_elbow", "right_elbow",
	"left_wrist", "right_wrist", "left_pinky", "right_pinky",
	"left_index", "right_index", "left_thumb", "right_thumb",
	"left_hip", "right_hip", "left_knee", "right_knee",
	"left_ankle", "right_ankle", "left_heel", "right_heel",
	"left_foot_index", "right_foot_index",
}

// JointName returns the snake_case name of a joint index, or "" if the
// index is not part of the topology.
func JointName(i int) string {
	if i < 0 || i >= NumJoints {
		return ""
	}
	return jointNames[i]
}

// JointIndex looks up a joint by its snake_case name.
func JointIndex(name string) (int, bool) {
	for i, n := range jointNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}
