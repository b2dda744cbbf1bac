/*
speeddetect watches a live camera stream, detects moving vehicles, estimates
their speed from frame to frame displacement and, when a vehicle exceeds the
configured speed limit, reads its license plate and records the event to a
log file.

The per frame pipeline is Detector -> Tracker -> Speed -> Plate -> Cooldown
and lives in the pipeline package.  Vehicle and plate regions are found with
Haar cascade classifiers via GoCV, plates are read with Tesseract.

See cmd/speeddetect for the command line program.
*/
package speeddetect
