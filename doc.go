/*
go-posematch compares live body poses against a reference pose captured from
a still photograph and renders the matched skeleton as an overlay.  It was
written to help a user line themselves up with a reference photo using a
camera feed, where each frame is scored by how closely the detected pose
matches the reference.

The root package holds the pose data model, the keypoint filter, the
similarity scorer and the capability interfaces for frame sources, pose
estimators and drawing surfaces.  The frame loop lives in the session
subpackage, pose estimation on the Rockchip NPU in rknn, and drawing in
render.

See example code and usage in the example subdirectory.
*/
package posematch
